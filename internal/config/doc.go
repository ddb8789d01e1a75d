// Package config reads the service's own runtime settings from the layered
// configuration store it serves. Settings live under the "Server" section
// plus "Logging:LogLevel:Default"; CLI flag overrides take precedence over
// every source, and defaults fill whatever no source defines.
package config
