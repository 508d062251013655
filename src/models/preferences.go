package models

// MPreferences mirrors the last selected view so a restart (or a shared
// link re-opening the dashboard) reproduces it.
type MPreferences struct {
	Subject    string `yaml:"subject" json:"subject"`
	Resolution string `yaml:"resolution" json:"resolution"`
}
