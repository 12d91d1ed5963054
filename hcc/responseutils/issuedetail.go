package responseutils

// Internal codes: These will be modified over time
const (
	RequestErr  = "Request Error"
	FormatErr   = "Formatting Error"
	ModelErr    = "Unsupported Model Error"
	TableErr    = "Rule Table Error"
	InternalErr = "Internal Error"
	NotFoundErr = "Not Found Error"
)
