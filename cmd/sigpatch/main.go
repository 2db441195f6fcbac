// Command sigpatch applies byte-signature patches to executable images.
package main

func main() {
	execute()
}
