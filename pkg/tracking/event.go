package tracking

// Event is the analytics record a domain event is translated into. ID is
// the distinct id of the account that performed the action.
type Event struct {
	ID         string
	Name       string
	Properties map[string]interface{}
}
