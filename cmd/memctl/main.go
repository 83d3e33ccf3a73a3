// Command memctl runs allocation workloads against the memkit allocators
// and reports what they did to memory.
package main

func main() {
	execute()
}
