package notifications

const (
	TypeRequestCreated       = "request_created"
	TypeRequestStatusChanged = "request_status_changed"
	TypeRequestDeleted       = "request_deleted"
	TypeAccountCreated       = "account_created"
	TypePasswordChanged      = "password_changed"
)
