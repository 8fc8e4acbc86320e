package questforge

import (
	"github.com/fablesmith/questforge/questforge/database"
	"github.com/fablesmith/questforge/questforge/interfaces"
	"github.com/fablesmith/questforge/questforge/quest"
	"github.com/fablesmith/questforge/questforge/services"
)

func New(cfg Config, version string, commit string) *App {
	return &App{
		Cfg:     cfg,
		Version: version,
		Commit:  commit,
	}
}

// App bundles the wired pieces of a running engine process. Fields are
// assigned during startup; everything hangs off the shared *database.DB.
type App struct {
	Cfg                  Config
	Version              string
	Commit               string
	DB                   *database.DB
	DefinitionRepository interfaces.DefinitionRepository
	ProgressRepository   interfaces.ProgressRepository
	HeroRepository       interfaces.HeroRepository
	Store                *quest.Store
	Engine               *quest.Engine
	Catalog              *quest.Catalog
	SyncService          *services.DefinitionSyncService
}
