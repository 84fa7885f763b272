package billdesk

import (
	"fmt"
	"strings"
)

type FeeStatus string

const (
	FeeStatusPending FeeStatus = "pending"
	FeeStatusPaid    FeeStatus = "paid"
)

// ChargeLine is one entry of a fee's breakdown.
type ChargeLine struct {
	Category string
	Amount   int
}

// FeeRecord is a single payable item. Records are immutable once the
// catalogue is built; no operation marks a fee as paid.
type FeeRecord struct {
	Id        string
	Name      string
	Total     int
	DueDate   string
	Status    FeeStatus
	Breakdown []ChargeLine
}

// Catalogue is the read-only set of fee records. Record order is fixed and
// acts as the tie-break for ambiguous lookups.
type Catalogue struct {
	records []FeeRecord
	byId    map[string]int
}

func NewCatalogue(records []FeeRecord) (*Catalogue, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("catalogue needs at least one record")
	}
	byId := make(map[string]int, len(records))
	for i, r := range records {
		if r.Id == "" {
			return nil, fmt.Errorf("record %d: empty id", i)
		}
		if _, dup := byId[r.Id]; dup {
			return nil, fmt.Errorf("record %q: duplicate id", r.Id)
		}
		if r.Total <= 0 {
			return nil, fmt.Errorf("record %q: total must be positive", r.Id)
		}
		if r.Status != FeeStatusPending && r.Status != FeeStatusPaid {
			return nil, fmt.Errorf("record %q: unknown status %q", r.Id, r.Status)
		}
		sum := 0
		for _, b := range r.Breakdown {
			if b.Amount <= 0 {
				return nil, fmt.Errorf("record %q: breakdown %q amount must be positive", r.Id, b.Category)
			}
			sum += b.Amount
		}
		if sum != r.Total {
			return nil, fmt.Errorf("record %q: breakdown sums to %d, total is %d", r.Id, sum, r.Total)
		}
		byId[r.Id] = i
	}
	return &Catalogue{records: records, byId: byId}, nil
}

// DefaultCatalogue builds the BEC fee structure. It panics on invalid data,
// which is only reachable by editing the literals below.
func DefaultCatalogue() *Catalogue {
	c, err := NewCatalogue([]FeeRecord{
		{
			Id: "tuition", Name: "Tuition Fee", Total: 75000,
			DueDate: "2025-01-30", Status: FeeStatusPending,
			Breakdown: []ChargeLine{
				{Category: "Course Fee", Amount: 50000},
				{Category: "Lab Fee", Amount: 15000},
				{Category: "Library Fee", Amount: 5000},
				{Category: "Sports Fee", Amount: 5000},
			},
		},
		{
			Id: "development", Name: "Development Fee", Total: 15000,
			DueDate: "2025-01-30", Status: FeeStatusPending,
			Breakdown: []ChargeLine{
				{Category: "Infrastructure", Amount: 8000},
				{Category: "Technology Upgrade", Amount: 5000},
				{Category: "Green Campus", Amount: 2000},
			},
		},
		{
			Id: "hostel", Name: "Hostel Fee", Total: 45000,
			DueDate: "2025-02-15", Status: FeeStatusPending,
			Breakdown: []ChargeLine{
				{Category: "Accommodation", Amount: 25000},
				{Category: "Mess Charges", Amount: 15000},
				{Category: "Maintenance", Amount: 3000},
				{Category: "Security Deposit", Amount: 2000},
			},
		},
		{
			Id: "examination", Name: "Examination Fee", Total: 5000,
			DueDate: "2025-02-28", Status: FeeStatusPending,
			Breakdown: []ChargeLine{
				{Category: "Registration", Amount: 2000},
				{Category: "Valuation", Amount: 2000},
				{Category: "Certificate", Amount: 1000},
			},
		},
	})
	if err != nil {
		panic(err)
	}
	return c
}

// Find resolves free text against the catalogue: exact id match first, then
// case-insensitive substring match against name or id, in catalogue order.
// Status is not consulted; callers that need pending-only semantics filter
// themselves.
func (c *Catalogue) Find(nameOrId string) (FeeRecord, bool) {
	query := strings.ToLower(strings.TrimSpace(nameOrId))
	if query == "" {
		return FeeRecord{}, false
	}
	if i, ok := c.byId[query]; ok {
		return c.records[i], true
	}
	for _, r := range c.records {
		if strings.Contains(strings.ToLower(r.Name), query) || strings.Contains(r.Id, query) {
			return r, true
		}
	}
	return FeeRecord{}, false
}

// Get looks up a record by exact id.
func (c *Catalogue) Get(id string) (FeeRecord, bool) {
	i, ok := c.byId[id]
	if !ok {
		return FeeRecord{}, false
	}
	return c.records[i], true
}

// Pending returns the pending records in catalogue order.
func (c *Catalogue) Pending() []FeeRecord {
	return c.filter(FeeStatusPending)
}

// Paid returns the paid records in catalogue order.
func (c *Catalogue) Paid() []FeeRecord {
	return c.filter(FeeStatusPaid)
}

func (c *Catalogue) filter(status FeeStatus) []FeeRecord {
	out := make([]FeeRecord, 0, len(c.records))
	for _, r := range c.records {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

// Records returns a copy of all records in catalogue order.
func (c *Catalogue) Records() []FeeRecord {
	out := make([]FeeRecord, len(c.records))
	copy(out, c.records)
	return out
}

// NameList is the canonical short-name listing used by not-found replies.
func (c *Catalogue) NameList() string {
	names := make([]string, 0, len(c.records))
	for _, r := range c.records {
		names = append(names, strings.TrimSuffix(r.Name, " Fee"))
	}
	if len(names) > 1 {
		return strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
	}
	return names[0]
}

func sumTotals(records []FeeRecord) int {
	total := 0
	for _, r := range records {
		total += r.Total
	}
	return total
}
