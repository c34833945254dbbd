// Command ccbuild builds, serves and verifies the collection cluster widget.
package main

func main() {
	Execute()
}
