// Package tracks holds the track record written by the scraper and the
// helpers that append it to, and read it back from, the output file.
package tracks

// Record is one row of the results table. Every field is display text as the
// page rendered it.
type Record struct {
	ID       string
	Date     string
	Distance string
	Duration string
}

func (r Record) Fields() []string {
	return []string{r.ID, r.Date, r.Distance, r.Duration}
}
