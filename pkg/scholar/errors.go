package scholar

import "fmt"

// ConfigurationError reports a missing mandatory parameter. It is returned
// before any page is fetched.
type ConfigurationError struct {
	// Param is the wire name of the missing parameter.
	Param string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	switch e.Param {
	case "api_key":
		return "missing api_key: get a SerpApi key at https://serpapi.com/manage-api-key"
	default:
		return fmt.Sprintf("missing required parameter %q", e.Param)
	}
}
