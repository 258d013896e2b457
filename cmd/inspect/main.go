package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"classlog/pkg/cache"
	"classlog/pkg/store"
	"classlog/pkg/version"
)

// inspect is a maintenance tool for poking at a classlog database while the
// server is stopped: list documents, dump sheet rows, purge trashed docs.

func usage() {
	fmt.Fprintln(os.Stderr, "usage: inspect --db <path> <docs|dump|purge> [args]")
	fmt.Fprintln(os.Stderr, "  docs             list documents")
	fmt.Fprintln(os.Stderr, "  dump <docID>     print sheets and rows for a document")
	fmt.Fprintln(os.Stderr, "  purge <docID>    delete a document, its rows, version and cache entries")
	os.Exit(2)
}

func main() {
	var dbPath string
	flag.StringVar(&dbPath, "db", "./db", "database path")
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}

	kv, err := store.Open(filepath.Join(dbPath, "store"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		os.Exit(1)
	}
	defer kv.Close()

	switch flag.Arg(0) {
	case "docs":
		listDocs(kv)
	case "dump":
		if flag.NArg() < 2 {
			usage()
		}
		dumpDoc(kv, flag.Arg(1))
	case "purge":
		if flag.NArg() < 2 {
			usage()
		}
		purgeDoc(kv, flag.Arg(1))
	default:
		usage()
	}
}

func listDocs(kv *store.Store) {
	docs, err := kv.ListDocuments()
	if err != nil {
		fmt.Fprintf(os.Stderr, "list documents: %v\n", err)
		os.Exit(1)
	}
	versions := version.New(kv)
	for _, d := range docs {
		state := ""
		if d.Trashed {
			state = " (trashed)"
		}
		fmt.Printf("%s  v%d  %s%s\n", d.ID, versions.Get(d.ID), d.Name, state)
	}
}

func dumpDoc(kv *store.Store, docID string) {
	doc, err := kv.GetDocument(docID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "get document: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("document %s %q trashed=%v\n", doc.ID, doc.Name, doc.Trashed)
	for _, sheet := range []string{store.SheetRoster, store.SheetIssues, store.SheetLog, store.SheetCounts, store.SheetBathroom} {
		if !kv.SheetPresent(docID, sheet) {
			continue
		}
		rows, err := kv.Rows(docID, sheet)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read %s: %v\n", sheet, err)
			continue
		}
		fmt.Printf("\n== %s (%d rows) ==\n", sheet, len(rows))
		fmt.Println(strings.Join(store.Headers[sheet], " | "))
		for _, r := range rows {
			fmt.Println(strings.Join(r.Cells, " | "))
		}
	}
}

func purgeDoc(kv *store.Store, docID string) {
	versions := version.New(kv)
	caches := cache.New(kv)
	caches.RemoveAll(docID, versions.Get(docID))
	if err := versions.Purge(docID); err != nil {
		fmt.Fprintf(os.Stderr, "purge version: %v\n", err)
	}
	if err := kv.PurgeDocument(docID); err != nil {
		fmt.Fprintf(os.Stderr, "purge document: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("purged %s\n", docID)
}
