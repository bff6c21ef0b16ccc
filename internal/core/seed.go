package core

import "time"

// SeedRecord is the demo snapshot installed when nothing has been saved yet.
func SeedRecord(now time.Time) WealthRecord {
	d := NewQuarterData()
	d[CashNoInterest] = []Entry{
		{ID: "1", Label: "Checking account", Value: 3000},
		{ID: "2", Label: "Wallet", Value: 5000},
	}
	d[CashInterest] = []Entry{{ID: "3", Label: "Savings", Value: 20000}}
	d[RealEstate] = []Entry{{ID: "4", Label: "Home", Value: 3500000}}
	d[Bitcoin] = []Entry{{ID: "5", Label: "Cold wallet", Value: 45000}}
	d[StocksIndex] = []Entry{{ID: "6", Label: "S&P 500 ETF", Value: 120000}}
	d[Pension] = []Entry{{ID: "7", Label: "Pension account", Value: 50000}}
	return WealthRecord{ID: "2024-Q1", Timestamp: now.UnixMilli(), Data: d}
}
