/*
main.go - Application entry point

PURPOSE:
  Starts the billing engine CLI. All behavior lives in the cobra
  commands (root.go, serve.go, run.go, rates.go); this file only
  dispatches.

SEE ALSO:
  - root.go: Command tree and shared configuration loading
*/
package main

func main() {
	Execute()
}
