//go:build nativetls

package connector

const (
	variantNative variant = iota + 1
	variantNativePKCS12
)

// Configuration selects how the platform-native TLS stack is set up.
// Build one with Native or NativePKCS12.
type Configuration struct {
	variant    variant
	path       string
	passphrase string
}

// Native uses the platform trust roots and no client identity.
func Native() Configuration {
	return Configuration{variant: variantNative}
}

// NativePKCS12 presents the identity stored in the PKCS#12 archive at
// path.  The archive is read when the connector is built.
func NativePKCS12(path, passphrase string) Configuration {
	return Configuration{variant: variantNativePKCS12, path: path, passphrase: passphrase}
}

// Backend reports the compiled backend.
func (c Configuration) Backend() string { return BackendNative }

// Path returns the PKCS#12 archive path, if any.
func (c Configuration) Path() string { return c.path }
