package app

// ShowConfigurationEvent is fired when the user requests the settings page.
type ShowConfigurationEvent struct{}

// WebviewClosedEvent is fired when the settings page has been closed.
//
// Response is the percent-encoded JSON object produced by the page.
// It is empty when the page was closed without saving.
type WebviewClosedEvent struct {
	Response string
}
