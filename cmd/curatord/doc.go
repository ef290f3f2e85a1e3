// Command curatord runs the curator daemon and its management subcommands.
package main
