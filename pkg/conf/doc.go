// Package conf is a helper for benchmark runner configuration for both
// command line interface and environment variables.
// It gives the ability to register arguments which will be fetched from
// CLI input OR an environment variable.
//
// Every flag named `some_name` is also readable from the environment
// variable `BENCH_SOME_NAME`. When `ParseFlags` is executed, arguments
// from both CLI and env are parsed; in case of the --help option the
// generated help is printed. `ParseEnv` parses only the environment and
// can be run multiple times.
package conf
