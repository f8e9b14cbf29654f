package main

import (
	_ "git.burrowchat.net/burrow/burrow/src/admintools"
	_ "git.burrowchat.net/burrow/burrow/src/migration"
	"git.burrowchat.net/burrow/burrow/src/website"
)

func main() {
	website.WebsiteCommand.Execute()
}
