package council

import "encoding/json"

// Address is a resolved property: an opaque UPRN plus a display label
// assembled from the upstream address components.
type Address struct {
	UPRN  string `json:"uprn"`
	Label string `json:"label"`
}

// addressRecord mirrors one element of the getAddresses response. The UPRN
// arrives as a bare number in some responses and a string in others, so it
// is decoded as json.Number.
type addressRecord struct {
	Uprn     json.Number `json:"Uprn"`
	Property string      `json:"Property"`
	Street   string      `json:"Street"`
	Locality string      `json:"Locality"`
	Town     string      `json:"Town"`
	Postcode string      `json:"Postcode"`
}

// detailsResponse mirrors the OData envelope of GetCollectionDetails.
type detailsResponse struct {
	Value []serviceRecord `json:"value"`
}

// serviceRecord mirrors one collection service entry for a property.
// Timestamps are RFC3339 strings, e.g. "2025-08-19T07:00:00+01:00".
type serviceRecord struct {
	ServiceName         string `json:"hso_servicename"`
	NextCollection      string `json:"hso_nextcollection"`
	LastCollection      string `json:"hso_lastcollection"`
	LastCompleted       string `json:"hso_lastcollectioncompleted"`
	StateName           string `json:"hso_statename"`
	Reason              string `json:"hso_reason"`
	StateSource         string `json:"hso_statesource"`
	ScheduleDescription string `json:"hso_scheduledescription"`
	Round               string `json:"hso_round"`
	RoundGroup          string `json:"hso_roundgroup"`
}
