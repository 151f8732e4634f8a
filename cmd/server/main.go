package main

import "bizdesk/internal/app/server"

func main() {
	server.Run()
}
