package taskname

const (
	// Credential tasks
	CredentialSessionsCleanup = "credential:sessions:cleanup"
)
