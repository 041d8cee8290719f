// Command crawler runs a breadth-first crawl of a single site from one seed
// URL. With no arguments it uses ./config.json when present and the built-in
// defaults otherwise.
package main

func main() {
	Execute()
}
