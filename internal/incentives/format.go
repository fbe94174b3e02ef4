package incentives

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Response is the incentive service document.
type Response struct {
	Data []Incentive `json:"data"`
}

// Incentive is one gauge paying out over a number of epochs.
type Incentive struct {
	StartTime         string  `json:"start_time"`
	NumEpochsPaidOver FlexInt `json:"num_epochs_paid_over"`
	FilledEpochs      FlexInt `json:"filled_epochs"`
	Coins             []Coin  `json:"coins"`
}

// Coin is a denom and amount. Amounts are kept verbatim.
type Coin struct {
	Denom  string     `json:"denom"`
	Amount FlexString `json:"amount"`
}

// FlexInt accepts a JSON number or a numeric string. Anything else decodes to zero.
type FlexInt int64

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*f = FlexInt(n)
		return nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		*f = FlexInt(int64(v))
		return nil
	}
	*f = 0
	return nil
}

// FlexString accepts a JSON string or number and keeps its text.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

var startTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// FormatDate renders an upstream timestamp as M/D/YYYY in UTC.
func FormatDate(raw string) string {
	s := strings.TrimSpace(raw)
	for _, layout := range startTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format("1/2/2006")
		}
	}
	return "Invalid Date"
}

// Format renders every incentive as a block separated by a blank line.
func Format(poolID string, resp *Response) string {
	if resp == nil || len(resp.Data) == 0 {
		return fmt.Sprintf("No incentives found for pool %s.", poolID)
	}
	var b strings.Builder
	for _, in := range resp.Data {
		fmt.Fprintf(&b, "Start Time: %s\n", FormatDate(in.StartTime))
		fmt.Fprintf(&b, "Duration: %d days\n", in.NumEpochsPaidOver)
		fmt.Fprintf(&b, "Elapsed: %d days\n", in.FilledEpochs)
		for _, c := range in.Coins {
			fmt.Fprintf(&b, "Coin: %s, Amount: %s\n", c.Denom, c.Amount)
		}
		b.WriteString("\n")
	}
	return b.String()
}
