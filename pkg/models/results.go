package models

// Result shapes returned to the UI layer. Mutating operations report
// failures as {ok:false, message} rather than raising; see pkg/errs for the
// paths that surface typed errors instead.

type SheetsPresent struct {
	Roster bool `json:"roster"`
	Issues bool `json:"issues"`
	Log    bool `json:"log"`
	Counts bool `json:"counts"`
}

type HasData struct {
	Roster bool `json:"roster"`
	Issues bool `json:"issues"`
	Log    bool `json:"log"`
}

type AppState struct {
	Attached      bool          `json:"attached"`
	DocID         string        `json:"docId,omitempty"`
	DocURL        string        `json:"docUrl,omitempty"`
	SheetsPresent SheetsPresent `json:"sheetsPresent"`
	HasData       HasData       `json:"hasData"`
}

type BuildResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	DocID   string `json:"docId,omitempty"`
	DocURL  string `json:"docUrl,omitempty"`
}

type OpResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

type UndoResult struct {
	OK      bool      `json:"ok"`
	Message string    `json:"message"`
	Row     *LogEntry `json:"row,omitempty"`
}
