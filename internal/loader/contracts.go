package loader

import (
	"bizmetrics/internal/domain"
)

// LoadContractLines reads the contract line export at path.
// Date columns are parsed to calendar dates. Empty dates stay zero (null).
// An empty NET_TOTAL_USD cell is read as 0 and later filtered as non-revenue.
func LoadContractLines(path string) ([]*domain.ContractLine, error) {
	t, err := readTable(path, contractColumns)
	if err != nil {
		return nil, err
	}

	lines := make([]*domain.ContractLine, 0, len(t.rows))
	for i := range t.rows {
		line, err := contractLineAt(t, i)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func contractLineAt(t *table, i int) (*domain.ContractLine, error) {
	netValue, _, err := t.number(i, ColNetTotalUSD)
	if err != nil {
		return nil, err
	}
	start, err := t.date(i, ColStartDate)
	if err != nil {
		return nil, err
	}
	end, err := t.date(i, ColEndDate)
	if err != nil {
		return nil, err
	}
	closed, err := t.date(i, ColCloseDate)
	if err != nil {
		return nil, err
	}

	line := &domain.ContractLine{
		BusinessID:  t.cell(i, ColBusinessID),
		Name:        t.cell(i, ColName),
		Industry:    t.cell(i, ColIndustry),
		Currency:    t.cell(i, ColCurrency),
		NetValue:    netValue,
		StartDate:   start,
		EndDate:     end,
		CloseDate:   closed,
		AccountType: t.cell(i, ColAccountType),
	}
	if t.has(ColTier) {
		line.Tier = t.cell(i, ColTier)
	}
	return line, nil
}
