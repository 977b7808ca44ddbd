package main

import (
	"fmt"
	"os"

	"recipe-costing/internal/core/sheet"
	"recipe-costing/internal/pkg/common"

	"github.com/spf13/cobra"
)

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <file>",
		Short: "Print the rows a price list would import, without writing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := readPriceList(args[0])
			if err != nil {
				return err
			}
			out, err := common.ToIndentedJSON(report)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

// readPriceList 讀取並解析價目表，找不到表頭時返回錯誤
func readPriceList(path string) (sheet.ParseReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return sheet.ParseReport{}, fmt.Errorf("read %s: %w", path, err)
	}
	report, err := sheet.Parse(data)
	if err != nil {
		return sheet.ParseReport{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if report.Tables == 0 {
		return report, fmt.Errorf("parse %s: no header row with a supplier and a product column", path)
	}
	return report, nil
}
