// Command brandlab runs the branding pipeline from the shell: parse
// recipient lists, stamp content, watermark images and send campaigns.
package main

import "github.com/ukaseai/brandlab/cmd/brandlab/commands"

func main() {
	commands.Execute()
}
