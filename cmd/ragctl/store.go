package main

import (
	"fmt"

	"ai-docqa-be/internal/bootstrap"
	"ai-docqa-be/internal/config"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func sweepCMD() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete every collection and all conversation history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), func(cfg *config.Config, c *bootstrap.Container) error {
				if err := c.ChatbotService.Sweep(cmd.Context()); err != nil {
					return err
				}
				color.Green("Swept %s store at %s", c.Collections.Backend(), c.Collections.Location())
				return nil
			})
		},
	}
}

func collectionsCMD() *cobra.Command {
	return &cobra.Command{
		Use:   "collections",
		Short: "List collections with their record counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), func(cfg *config.Config, c *bootstrap.Container) error {
				stats, err := c.Collections.Stats(cmd.Context())
				if err != nil {
					return err
				}

				color.Cyan("%s store at %s", c.Collections.Backend(), c.Collections.Location())
				if len(stats) == 0 {
					fmt.Println("no collections")
					return nil
				}
				for _, s := range stats {
					if s.Error != "" {
						color.Red("%-40s error: %s", s.Name, s.Error)
						continue
					}
					fmt.Printf("%-40s %d\n", s.Name, s.Count)
				}
				return nil
			})
		},
	}
}
