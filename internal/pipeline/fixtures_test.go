package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bizmetrics/internal/config"
)

var fixedTime = time.Date(2023, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedTime }

const contractsCSV = `BUSINESS_ID,NAME,INDUSTRY,CURRENCY,NET_TOTAL_USD,TIER,START_DATE,END_DATE,CLOSE_DATE,ACCOUNT_TYPE
b1,Acme,Healthcare,USD,1200,Enterprise,2022-01-01,2023-01-01,2021-12-15,Direct
b1,Acme,Healthcare,USD,600,Enterprise,2023-01-01,2024-01-01,2022-12-10,Direct
b2,Globex,Retail,EUR,500,Standard,2022-06-01,2022-12-01,2022-05-20,Partner
b3,Initech,Retail,BRL,300,Standard,2022-02-01,2023-02-01,2022-01-20,Direct
b4,Hooli,Media,USD,-10,,2022-02-01,2023-02-01,2022-01-20,Direct
`

// monthsOfData is the number of calendar months in the series fixtures.
const monthsOfData = 14

// writeFixtures writes a complete set of source exports into a temp dir and
// returns a validated config pointing at them.
func writeFixtures(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	write("contracts.csv", contractsCSV)

	// ACV grows 10% a month; the mid-month reading is superseded by month end.
	var acv strings.Builder
	acv.WriteString("CALENDAR_DATE,ACTIVE_ACV\n")
	value := 100.0
	for i := 0; i < monthsOfData; i++ {
		month := time.Date(2022, time.January+time.Month(i), 1, 0, 0, 0, 0, time.UTC)
		fmt.Fprintf(&acv, "%s,%.4f\n", month.AddDate(0, 0, 14).Format("2006-01-02"), value/2)
		fmt.Fprintf(&acv, "%s,%.4f\n", month.AddDate(0, 1, -1).Format("2006-01-02"), value)
		value *= 1.1
	}
	write("acv.csv", acv.String())

	var training strings.Builder
	training.WriteString("CALENDAR_DATE,DAUS,MAUS\n")
	for i := 0; i < monthsOfData; i++ {
		month := time.Date(2022, time.January+time.Month(i), 1, 0, 0, 0, 0, time.UTC)
		fmt.Fprintf(&training, "%s,%d,%d\n", month.AddDate(0, 1, -1).Format("2006-01-02"), 5+i, 10*(i+1))
	}
	write("training.csv", training.String())

	write("fields.csv", "CALENDAR_DATE,TEXT_SEARCH,NLP_FILTER\n"+
		"2023-02-01,10,1\n"+
		"2023-02-02,12,\n"+
		"2023-02-03,15,3\n")

	cfg := config.Default()
	cfg.DataDir = dir
	cfg.AsOf = "2023-03-01"
	cfg.Sources = config.Sources{Contracts: "contracts.csv", ACV: "acv.csv", ACVMeasure: "ACTIVE_ACV"}
	cfg.Features = []config.Feature{
		{Name: "training", File: "training.csv", Measures: []string{"DAUS", "MAUS"}, Measure: "MAUS", Recent: 2, Prior: 2},
		{Name: "fields", File: "fields.csv", Measures: []string{"TEXT_SEARCH", "NLP_FILTER"}, Measure: "NLP_FILTER", Rollup: config.RollupDaily},
	}
	require.NoError(t, cfg.Validate())
	return cfg
}
