package domain

// FOMCDates are the FOMC statement release dates (2018-2025), compared
// against a bar's UTC date as a YYYY-MM-DD string. This set is part of the
// domain contract and must be reproduced exactly, not regenerated.
var FOMCDates = map[string]bool{
	"2018-01-31": true, "2018-03-21": true, "2018-05-02": true, "2018-06-13": true,
	"2018-08-01": true, "2018-09-26": true, "2018-11-08": true, "2018-12-19": true,
	"2019-01-30": true, "2019-03-20": true, "2019-05-01": true, "2019-06-19": true,
	"2019-07-31": true, "2019-09-18": true, "2019-10-30": true, "2019-12-11": true,
	"2020-01-29": true, "2020-03-18": true, "2020-04-29": true,
	"2020-06-10": true, "2020-07-29": true, "2020-09-16": true, "2020-11-05": true,
	"2020-12-16": true,
	"2021-01-27": true, "2021-03-17": true, "2021-04-28": true, "2021-06-16": true,
	"2021-07-28": true, "2021-09-22": true, "2021-11-03": true, "2021-12-15": true,
	"2022-01-26": true, "2022-03-16": true, "2022-05-04": true, "2022-06-15": true,
	"2022-07-27": true, "2022-09-21": true, "2022-11-02": true, "2022-12-14": true,
	"2023-02-01": true, "2023-03-22": true, "2023-05-03": true, "2023-06-14": true,
	"2023-07-26": true, "2023-09-20": true, "2023-11-01": true, "2023-12-13": true,
	"2024-01-31": true, "2024-03-20": true, "2024-05-01": true, "2024-06-12": true,
	"2024-07-31": true, "2024-09-18": true, "2024-11-07": true, "2024-12-18": true,
	"2025-01-29": true, "2025-03-19": true, "2025-04-30": true, "2025-06-18": true,
	"2025-07-30": true, "2025-09-17": true, "2025-11-06": true, "2025-12-17": true,
}

// IsFOMCDate reports whether the given UTC calendar date (YYYY-MM-DD) is a
// known FOMC statement release date.
func IsFOMCDate(dateUTC string) bool {
	return FOMCDates[dateUTC]
}
