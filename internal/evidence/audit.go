package evidence

// AuditKind classifies an audit trail entry.
type AuditKind string

const (
	AuditParseFailure  AuditKind = "parse_failure"
	AuditUnresolved    AuditKind = "unresolved"
	AuditAssumption    AuditKind = "assumption"
	AuditExclusion     AuditKind = "exclusion"
	AuditReview        AuditKind = "review"
	AuditWorkerFailure AuditKind = "worker_failure"
	AuditCoordinates   AuditKind = "coordinates"
)

// AuditEntry is one human-readable line of a record's audit trail.
type AuditEntry struct {
	Kind    AuditKind `json:"kind"`
	Message string    `json:"message"`
}

// RecordAudit is the complete audit trail of a single record.
type RecordAudit struct {
	Index      int            `json:"index"`
	SourcePath string         `json:"source_path"`
	Status     TimezoneStatus `json:"status"`
	Entries    []AuditEntry   `json:"entries"`
}

// Has reports whether an entry of the given kind and message exists.
func (a RecordAudit) Has(kind AuditKind, message string) bool {
	for _, entry := range a.Entries {
		if entry.Kind == kind && entry.Message == message {
			return true
		}
	}
	return false
}
