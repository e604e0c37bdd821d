package crm

// Collection names in the item store.
const (
	Deals           = "os_deals"
	Contacts        = "contacts"
	Properties      = "property"
	Services        = "services"
	Addons          = "addons"
	Proposals       = "os_proposals"
	Invoices        = "os_invoices"
	Payments        = "os_payments"
	Bookings        = "bookings"
	TaxRates        = "os_tax_rates"
	DealStages      = "os_deal_stages"
	DealContacts    = "os_deals_contacts"
	BookingAgents   = "bookings_agents"
	BookingProperty = "bookings_property"

	// Two generations of the agent to property join table.
	AgentsPropertyLegacy = "agents_property_2"
	PropertyAgentsLegacy = "property_agents_1"
)
