package ports

// FeatureToggles is the live configuration collaborator gating optional
// behavior (watchdog observe/flag/autoban, self-watering override).
type FeatureToggles interface {
	IsEnabled(name string) bool
}
