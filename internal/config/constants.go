package config

// ModuleFileExt is the extension of the text module format
const ModuleFileExt = ".nmod.yaml"

// ModuleFileExtensions are all recognized text module extensions
var ModuleFileExtensions = []string{".nmod.yaml", ".nmod.yml", ".yaml", ".yml"}

// BinaryModuleFileExt is the extension of the gob-encoded module format
const BinaryModuleFileExt = ".nmod"

// DefaultConfigFile is looked up in the working directory when --config is absent
const DefaultConfigFile = "nameof.yaml"

// Marker defaults: calls to Name.Of(...) defined in the "Name.Of" component
const (
	DefaultMarkerType      = "Name"
	DefaultMarkerMethod    = "Of"
	DefaultMarkerReference = "Name.Of"
)

// Logging defaults
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Environment variables overriding the config file
const (
	EnvMarkerType      = "NAMEOF_MARKER_TYPE"
	EnvMarkerMethod    = "NAMEOF_MARKER_METHOD"
	EnvMarkerReference = "NAMEOF_MARKER_REFERENCE"
	EnvLogLevel        = "NAMEOF_LOG_LEVEL"
	EnvLogFormat       = "NAMEOF_LOG_FORMAT"
	EnvReport          = "NAMEOF_REPORT"
)
