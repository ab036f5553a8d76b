package main

import (
	"go.uber.org/fx"

	"github.com/supermilas/ordercore/internal/app"
)

func main() {
	fx.New(app.Module).Run()
}
