//go:build nativetls

package cmd

const backend = "native"
