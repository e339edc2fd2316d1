package types

// VerdictKind is the classified result of a scan attempt.
type VerdictKind string

const (
	VerdictClean    VerdictKind = "clean"
	VerdictInfected VerdictKind = "infected"
	VerdictError    VerdictKind = "error"
	VerdictSkipped  VerdictKind = "skipped"
)

// ScanVerdict carries the classification plus the raw scanner output it was
// derived from.
type ScanVerdict struct {
	Kind     VerdictKind
	FileName string
	Output   string // raw scanner output text
}

// Scan response states on the wire.
const (
	ScanStateRunning         = "virusScan"
	ScanStateInfected        = "infected"
	ScanStateAllNotInfected  = "allFileScannedNotInfected"
	ScanStateAllSomeInfected = "allFileScannedSomeInfected"
	ScanStateSkipped         = "scanSkipped"
)

// ScanResponse is the JSON body returned by the scan endpoint.
type ScanResponse struct {
	State             string `json:"state"`
	UserMessage       string `json:"userMessage"`
	File              string `json:"file"`
	VirusFound        bool   `json:"virusFound"`
	SomeInfectedFiles int    `json:"someInfectedFiles"`
}
