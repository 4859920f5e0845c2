package cmd

import "go.uber.org/fx"

var Module = fx.Module("cli",
	fx.Provide(
		fx.Annotate(initCmd, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(ls, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(run, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(watch, fx.ResultTags(`group:"commands"`)),
	),
	fx.Invoke(Run),
)
