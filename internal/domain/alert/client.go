// internal/domain/alert/client.go
package alert

// Client defines an interface for pushing short operational alerts to an
// administrator. This decouples the health reporter from the specific
// messaging library.
type Client interface {
	Notify(text string) error
}
