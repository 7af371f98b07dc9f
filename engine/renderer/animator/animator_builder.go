package animator

// DriverBuilderOption is a functional option for configuring a Driver during construction.
type DriverBuilderOption func(*driver)

// WithEnabled is an option builder that sets the initial enabled state of the Driver.
//
// Parameters:
//   - enabled: whether Advance applies tracks
//
// Returns:
//   - DriverBuilderOption: a function that applies the enabled option to a driver
func WithEnabled(enabled bool) DriverBuilderOption {
	return func(d *driver) {
		d.enabled = enabled
	}
}
