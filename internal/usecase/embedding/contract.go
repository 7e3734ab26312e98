package embedding

// Auditor appends entries to the activity log. Failures are reported but never fatal.
type Auditor interface {
	Append(message string) error
}
