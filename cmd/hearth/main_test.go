package main

import "testing"

func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("HEARTH_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Fatalf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}
}

func TestGetConfigPath_EnvOverride(t *testing.T) {
	t.Setenv("HEARTH_CONFIG", "/etc/hearth/config.yaml")
	if got := getConfigPath(); got != "/etc/hearth/config.yaml" {
		t.Fatalf("getConfigPath() = %q", got)
	}
}
