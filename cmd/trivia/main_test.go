package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommandTree(t *testing.T) {
	names := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}
	require.True(t, names["client"])
	require.True(t, names["server"])

	require.NotNil(t, rootCmd.PersistentFlags().Lookup("port"))
	require.NotNil(t, rootCmd.PersistentFlags().Lookup("accounts-file"))
	require.NotNil(t, clientCmd.PersistentFlags().Lookup("rounds"))
}
