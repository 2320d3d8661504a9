package main

import (
	"github.com/crag-dev/crag/cmd"
	_ "github.com/crag-dev/crag/internal/provider/init"
)

func main() {
	cmd.Execute()
}
