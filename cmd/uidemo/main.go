// Command uidemo is a small catalog bot built on the gobot-ui layer: paged inline
// keyboards with packed callback data, a referral deep link, a date-entry
// conversation and an inline share article.
package main

import (
	"log"

	"github.com/m3rciful/gobot-ui/core/cmd"
	coreconfig "github.com/m3rciful/gobot-ui/core/config"
)

func main() {
	err := cmd.Run(cmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (cmd.ConfigCarrier, error) {
			return coreconfig.Load(path)
		},
		Bootstrap: newApp,
	})
	if err != nil {
		log.Fatal(err)
	}
}
