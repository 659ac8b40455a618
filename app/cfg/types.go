package cfg

type Cfg struct {
	// Database configuration
	DBPath string

	// Application configuration
	Port              string
	APIAccessKey      string
	ReconcileInterval int
	PackagesFile      string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
