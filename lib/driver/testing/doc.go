// Package testing provides a standardised conformance suite for
// implementations of the driver.Driver interface.
//
// Every engine runs the same suite, which is what keeps the drivers in
// agreement about missing keys, overwrites, listing and expiry.
//
// Example usage:
//
//	// Creating a factory function for your implementation
//	factory := func(t *testing.T) driver.Driver {
//		return NewMyDriver(t.TempDir())
//	}
//
//	// Running the standard test suite (nil = advance the clock with time.Sleep)
//	drivertesting.RunDriverTests(t, "MyDriver", factory, nil)
package testing
