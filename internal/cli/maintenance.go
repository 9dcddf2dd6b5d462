package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	maintenanceDryRun  bool
	maintenanceWeekly  bool
	maintenanceProject string
)

var maintenanceCmd = &cobra.Command{
	Use:   "maintenance",
	Short: "Run decay, archival, and health checks",
	Run:   runMaintenance,
}

func init() {
	maintenanceCmd.Flags().BoolVar(&maintenanceDryRun, "dry-run", false, "Report what would change without writing")
	maintenanceCmd.Flags().BoolVar(&maintenanceWeekly, "weekly", false, "Also run the weekly promotion sweep")
	maintenanceCmd.Flags().StringVar(&maintenanceProject, "project", "", "Project to sweep for promotion (with --weekly)")
}

func runMaintenance(cmd *cobra.Command, args []string) {
	a, err := openApp()
	if err != nil {
		dieOnError(err)
		return
	}
	defer a.Close()

	windowKey := time.Now().Format("2006-01-02")
	result, err := a.maint.RunDaily(windowKey, maintenanceDryRun)
	if err != nil {
		dieOnError(err)
		return
	}
	fmt.Println(result.Summary())

	if maintenanceWeekly {
		year, week := time.Now().ISOWeek()
		weekKey := fmt.Sprintf("%d-W%02d", year, week)
		promoted, err := a.maint.RunWeeklyPromotion(weekKey, maintenanceProject, maintenanceDryRun)
		if err != nil {
			dieOnError(err)
			return
		}
		if len(promoted) == 0 {
			fmt.Println("weekly promotion: nothing eligible")
		} else {
			fmt.Printf("weekly promotion: %d promoted\n", len(promoted))
			for _, id := range promoted {
				fmt.Printf("  %s\n", id)
			}
		}
	}
}
