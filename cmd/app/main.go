package main

import (
	"github.com/Conte777/tgnewsfeed/internal/app"
	"go.uber.org/fx"
)

func main() {
	fx.New(app.CreateApp()).Run()
}
