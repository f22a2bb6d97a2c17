package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/readgarden/readgarden/internal/daemon"
	"github.com/readgarden/readgarden/internal/domain"
)

func init() {
	plantBuyCmd.Flags().StringVar(&plantName, "name", "", "Name for the new plant")

	plantCmd.AddCommand(plantListCmd, plantSpeciesCmd, plantBuyCmd, plantWaterCmd, plantActivateCmd, plantRmCmd)
	rootCmd.AddCommand(plantCmd)
}

var plantName string

var plantCmd = &cobra.Command{
	Use:     "plant",
	Aliases: []string{"garden", "plants"},
	Short:   "Buy, water and choose plants",
}

var plantListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List owned plants and their health",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := daemon.New()
		if err != nil {
			return err
		}
		defer d.Close()

		plants, err := d.Garden.List(contextOf(cmd))
		if err != nil {
			return err
		}
		if len(plants) == 0 {
			fmt.Println("Your garden is empty. Run 'readgarden plant buy fern' for a free starter plant.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSPECIES\tLEVEL\tSTATUS\tWATER IN\tBOOST\tACTIVE")
		for _, p := range plants {
			active := ""
			if p.Plant.IsActive {
				active = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%s\t%s\t%.1f%%\t%s\n",
				shortID(p.Plant.ID), p.Plant.Name, p.Species.Name,
				p.Plant.CurrentLevel, p.Species.MaxLevel,
				plantStatus(p), waterIn(p), p.BoostPercentage*100, active)
		}
		return w.Flush()
	},
}

var plantSpeciesCmd = &cobra.Command{
	Use:   "species",
	Short: "List the plant catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := daemon.New()
		if err != nil {
			return err
		}
		defer d.Close()

		species, err := d.Garden.Species(contextOf(cmd))
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCOST\tMAX LEVEL\tWATER EVERY\tBOOST")
		for _, s := range species {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%dd\t%.1f%%\n",
				s.ID, s.Name, s.Cost, s.MaxLevel, s.WaterIntervalDays, s.XPBoostPercentage*100)
		}
		return w.Flush()
	},
}

var plantBuyCmd = &cobra.Command{
	Use:   "buy <species-id>",
	Short: "Buy a plant with coins",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := daemon.New()
		if err != nil {
			return err
		}
		defer d.Close()

		p, err := d.Garden.Purchase(contextOf(cmd), strings.ToLower(args[0]), plantName)
		if err != nil {
			return err
		}
		fmt.Printf("Planted %s (%s)", p.Name, p.ID)
		if p.IsActive {
			fmt.Print(", now your active plant")
		}
		fmt.Println()
		return nil
	},
}

var plantWaterCmd = &cobra.Command{
	Use:   "water <plant-id>",
	Short: "Water a plant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := daemon.New()
		if err != nil {
			return err
		}
		defer d.Close()

		ctx := contextOf(cmd)
		id, err := resolvePlantID(ctx, d, args[0])
		if err != nil {
			return err
		}
		v, err := d.Garden.Water(ctx, id)
		if err != nil {
			return err
		}
		fmt.Printf("Watered %s, next watering in %s\n", v.Plant.Name, waterIn(v))
		return nil
	},
}

var plantActivateCmd = &cobra.Command{
	Use:   "activate <plant-id>",
	Short: "Make a plant the one that grows and boosts XP",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := daemon.New()
		if err != nil {
			return err
		}
		defer d.Close()

		ctx := contextOf(cmd)
		id, err := resolvePlantID(ctx, d, args[0])
		if err != nil {
			return err
		}
		if err := d.Garden.SetActive(ctx, id); err != nil {
			return err
		}
		fmt.Printf("Plant %s is now active\n", shortID(id))
		return nil
	},
}

var plantRmCmd = &cobra.Command{
	Use:   "rm <plant-id>",
	Short: "Remove a plant from the garden",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := daemon.New()
		if err != nil {
			return err
		}
		defer d.Close()

		ctx := contextOf(cmd)
		id, err := resolvePlantID(ctx, d, args[0])
		if err != nil {
			return err
		}
		if err := d.Garden.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Printf("Removed plant %s\n", shortID(id))
		return nil
	},
}

func plantStatus(p domain.PlantView) string {
	s := string(p.Plant.Status)
	if p.NeedsWateringSoon {
		s += " (water soon)"
	}
	return s
}

// waterIn formats the time left before the plant turns thirsty.
func waterIn(p domain.PlantView) string {
	switch {
	case p.Plant.Status == domain.PlantDead:
		return "-"
	case p.DaysUntilWaterNeeded <= 0:
		return "now"
	case p.DaysUntilWaterNeeded < 1:
		return fmt.Sprintf("%.0fh", p.DaysUntilWaterNeeded*24)
	default:
		return fmt.Sprintf("%.1fd", p.DaysUntilWaterNeeded)
	}
}
