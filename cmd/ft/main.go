// Command ft tracks designated files and records every settled change
// as an immutable, queryable snapshot in a per-project history.
package main

func main() {
	Execute()
}
