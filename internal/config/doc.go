// Package config defines the installer settings and provides helpers to load,
// validate and save them in YAML format.
//
// Every path (data folder, workspace, ledger, installed manifest, log file) is
// derived from the program name unless set explicitly.
package config
