//go:build !nativetls

package cmd

const backend = "software"
