package banner

import (
	"fmt"
)

const banner = `
 ██████╗██╗      █████╗ ███████╗███████╗██╗      ██████╗  ██████╗
██╔════╝██║     ██╔══██╗██╔════╝██╔════╝██║     ██╔═══██╗██╔════╝
██║     ██║     ███████║███████╗███████╗██║     ██║   ██║██║  ███╗
██║     ██║     ██╔══██║╚════██║╚════██║██║     ██║   ██║██║   ██║
╚██████╗███████╗██║  ██║███████║███████║███████╗╚██████╔╝╚██████╔╝
 ╚═════╝╚══════╝╚═╝  ╚═╝╚══════╝╚══════╝╚══════╝ ╚═════╝  ╚═════╝
`

// Print writes the startup banner with the effective runtime settings and a
// quick endpoint reference.
func Print(addr, dbPath, sources, version string) {
	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", addr)
	fmt.Printf("DB Path:  %s\n", dbPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	if sources != "" {
		fmt.Printf("Config sources: %s\n", sources)
	}
	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("GET  /v1/state - Attachment and sheet state")
	fmt.Println("POST /v1/build - Create/repair the attached document's sheets")
	fmt.Println("GET  /v1/data - Roster periods, per-period name map and issue list")
	fmt.Println("GET  /v1/counts?period=<p> - Per-student issue counts for a period")
	fmt.Println("POST /v1/log - Append incident log entries (JSON: entries, ts)")
	fmt.Println("POST /v1/log/undo - Remove the most recent matching log entry")
	fmt.Println("POST /v1/bathroom/scan - Record a bathroom scan (JSON: studentId)")
	fmt.Println("GET  /v1/bathroom/status?period=<p> - Who is out right now")
	fmt.Println("GET  /v1/bathroom/analytics - Completed trip tallies for today")
	fmt.Println("\n== Examples ===================================================")
	fmt.Printf("curl 'http://localhost%s/v1/data'\n", addr)
	fmt.Printf("curl -X POST 'http://localhost%s/v1/log' -d '{\"entries\":[{\"student\":\"Ana\",\"issue\":\"Tardy\"}]}'\n", addr)
	fmt.Println("\n== Production? =================================================")
	fmt.Println("Set a proper storage path (--db)")
	fmt.Println("Put a reverse proxy with TLS and auth in front of this service")
}
