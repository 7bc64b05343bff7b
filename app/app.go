package app

import (
	"github.com/go-chi/oauth"

	"github.com/fieldline/fieldline/config"
	"github.com/fieldline/fieldline/store"
)

type App struct {
	*store.Store
	*oauth.BearerServer
	config.Config
}
