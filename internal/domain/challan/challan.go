// Package challan defines the challan (service job-card) domain model and
// the client-side filter applied to the challan list.
package challan

import (
	"strings"
	"time"
)

// Status values assigned by the backend.
const (
	StatusPending   = "pending"
	StatusDelivered = "delivered"
)

// Warranty states. Exactly one applies to a challan.
const (
	WarrantyCovered    = "Warranty"
	WarrantyNone       = "No Warranty"
	WarrantyChargeable = "Chargeable"
	WarrantyDispatched = "Material Send to Customer"
)

// WarrantyOptions lists the selectable warranty states in display order.
var WarrantyOptions = []string{
	WarrantyCovered,
	WarrantyNone,
	WarrantyChargeable,
	WarrantyDispatched,
}

// AccessoryCatalog lists the accessories offered as intake checkboxes.
var AccessoryCatalog = []string{
	"Desktop",
	"Laptop",
	"SSD",
	"Adapter",
	"RAM",
	"Carry Case",
	"HDD",
	"Damage",
	"Mother Board",
	"Printer",
	"CPU",
	"Toner",
	"LCD / LED / IPS",
	"Head",
	"Keyboard or Mouse",
	"Speaker",
}

// Item is one row of the challan item table.
type Item struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
}

// Challan is a service job-card record as returned by the backend.
type Challan struct {
	ChallanNo       string   `json:"challan_no"`
	CustomerName    string   `json:"customer_name"`
	Email           string   `json:"email"`
	ContactNumber   string   `json:"contact_number"`
	City            string   `json:"city"`
	SerialNumber    string   `json:"serial_number"`
	Problem         string   `json:"problem"`
	Accessories     []string `json:"accessories"`
	Warranty        string   `json:"warranty"`
	DispatchThrough string   `json:"dispatch_through"`
	EmployeeID      string   `json:"employee_id"`
	Items           []Item   `json:"items"`
	Status          string   `json:"status"`
	Date            string   `json:"date"` // display format DD/MM/YYYY[,HH:MM]
	PDFURL          string   `json:"pdf_url"`
	QRCodeURL       string   `json:"qr_code_url"`
}

// Delivered reports whether the challan has been handed back to the customer.
func (c Challan) Delivered() bool {
	return strings.EqualFold(c.Status, StatusDelivered)
}

// ParseDisplayDate parses the backend's display date format DD/MM/YYYY,
// optionally followed by a comma and a time part which is ignored.
func ParseDisplayDate(s string) (time.Time, bool) {
	datePart, _, _ := strings.Cut(s, ",")
	t, err := time.Parse("2/1/2006", strings.TrimSpace(datePart))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Filter is the client-side predicate over a loaded challan collection.
// From and To bound the challan date; To is inclusive through end-of-day.
// Status "all" (or empty) matches every status, anything else matches
// case-insensitively.
type Filter struct {
	From   *time.Time
	To     *time.Time
	Status string
}

// Match reports whether the challan passes the filter. A challan whose
// date does not parse never matches.
func (f Filter) Match(c Challan) bool {
	d, ok := ParseDisplayDate(c.Date)
	if !ok {
		return false
	}
	if f.From != nil && d.Before(*f.From) {
		return false
	}
	if f.To != nil {
		end := time.Date(f.To.Year(), f.To.Month(), f.To.Day(), 23, 59, 59, 999_000_000, f.To.Location())
		if d.After(end) {
			return false
		}
	}
	if f.Status != "" && f.Status != "all" && !strings.EqualFold(f.Status, c.Status) {
		return false
	}
	return true
}

// Apply returns the challans matching the filter, preserving order.
func Apply(list []Challan, f Filter) []Challan {
	out := make([]Challan, 0, len(list))
	for _, c := range list {
		if f.Match(c) {
			out = append(out, c)
		}
	}
	return out
}

// Form is the editable challan as held by the intake form. The JSON field
// names are the wire format of the multipart "data" payload.
type Form struct {
	CustomerName    string   `json:"customer_name"`
	Email           string   `json:"email"`
	ContactNumber   string   `json:"contact_number"`
	City            string   `json:"city"`
	SerialNumber    string   `json:"serial_number"`
	Problem         string   `json:"problem"`
	Accessories     []string `json:"accessories"`
	Warranty        string   `json:"warranty"`
	DispatchThrough string   `json:"dispatch_through"`
	EmployeeID      string   `json:"employee_id"`
	Items           []Item   `json:"items"`
}

// NewForm returns an empty form with the single blank item row the editor
// always starts from.
func NewForm() Form {
	return Form{
		Accessories: []string{},
		Items:       []Item{{Quantity: 1}},
	}
}

// FormFromChallan copies an existing record into an editable form,
// guaranteeing at least one item row.
func FormFromChallan(c Challan) Form {
	f := Form{
		CustomerName:    c.CustomerName,
		Email:           c.Email,
		ContactNumber:   c.ContactNumber,
		City:            c.City,
		SerialNumber:    c.SerialNumber,
		Problem:         c.Problem,
		Accessories:     c.Accessories,
		Warranty:        c.Warranty,
		DispatchThrough: c.DispatchThrough,
		EmployeeID:      c.EmployeeID,
		Items:           c.Items,
	}
	if f.Accessories == nil {
		f.Accessories = []string{}
	}
	if len(f.Items) == 0 {
		f.Items = []Item{{Quantity: 1}}
	}
	return f
}

// HasAccessory reports set membership for the accessory checkboxes.
func (f Form) HasAccessory(name string) bool {
	for _, a := range f.Accessories {
		if a == name {
			return true
		}
	}
	return false
}

// ToggleAccessory adds the accessory when absent and removes it when present.
func (f *Form) ToggleAccessory(name string) {
	for i, a := range f.Accessories {
		if a == name {
			f.Accessories = append(f.Accessories[:i], f.Accessories[i+1:]...)
			return
		}
	}
	f.Accessories = append(f.Accessories, name)
}

// SetWarranty replaces the warranty selection; unknown values are ignored.
func (f *Form) SetWarranty(value string) {
	for _, opt := range WarrantyOptions {
		if opt == value {
			f.Warranty = value
			return
		}
	}
}

// UpdateItem replaces one field of one row. Quantity is clamped to a
// minimum of 1. Out-of-range indexes are ignored.
func (f *Form) UpdateItem(idx int, description string, quantity int) {
	if idx < 0 || idx >= len(f.Items) {
		return
	}
	if quantity < 1 {
		quantity = 1
	}
	f.Items[idx] = Item{Description: description, Quantity: quantity}
}

// AddItem appends a fresh blank row. Rows are never removed.
func (f *Form) AddItem() {
	f.Items = append(f.Items, Item{Quantity: 1})
}
