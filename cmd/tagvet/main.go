// TagVet - tag compliance auditing for cloud estates.
// Scan. Score. Report.
package main

func main() {
	Execute()
}
