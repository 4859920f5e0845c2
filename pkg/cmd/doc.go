// Package cmd provides the sqlrun CLI commands and their wiring.
//
// Commands are constructed as urfave/cli v3 commands, provided through an fx
// module, and assembled into the application by Run. The command layer owns
// everything the core runner treats as external: flag parsing, configuration
// resolution, the terminal confirmation prompt, and rendering of run
// summaries and error help.
package cmd
