package httpapi

import (
	"gift_delivery_bot/internal/app"
	"gift_delivery_bot/internal/domain/member"
)

type memberResponse struct {
	ID            int64  `json:"id"`
	Cedula        string `json:"cedula"`
	NameFirst     string `json:"name_first"`
	NameSecond    string `json:"name_second"`
	SurnameFirst  string `json:"surname_first"`
	SurnameSecond string `json:"surname_second"`
	FullName      string `json:"full_name"`
	Agency        string `json:"agency"`
	Company       string `json:"company"`
	Notes         string `json:"notes"`
	Status        string `json:"status"`
	DeliveredAt   string `json:"delivered_at,omitempty"`
	DeliveredBy   string `json:"delivered_by,omitempty"`
}

func toResponse(m member.Member) memberResponse {
	return memberResponse{
		ID:            m.ID,
		Cedula:        m.Cedula,
		NameFirst:     m.NameFirst,
		NameSecond:    m.NameSecond,
		SurnameFirst:  m.SurnameFirst,
		SurnameSecond: m.SurnameSecond,
		FullName:      m.FullName(),
		Agency:        m.Agency,
		Company:       m.Company,
		Notes:         m.Notes,
		Status:        string(m.Status),
		DeliveredAt:   m.DeliveredAtString(),
		DeliveredBy:   m.DeliveredBy,
	}
}

type memberListResponse struct {
	Members []memberResponse `json:"members"`
	Count   int              `json:"count"`
}

type createMemberRequest struct {
	Cedula        string `json:"cedula"`
	NameFirst     string `json:"name_first"`
	NameSecond    string `json:"name_second"`
	SurnameFirst  string `json:"surname_first"`
	SurnameSecond string `json:"surname_second"`
	Agency        string `json:"agency"`
	Company       string `json:"company"`
	Notes         string `json:"notes"`
	Status        string `json:"status"`
}

type deliverRequest struct {
	Actor string `json:"actor"`
}

type rejectedRowResponse struct {
	Row     int    `json:"row"`
	Cedula  string `json:"cedula"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type importResponse struct {
	Total    int                   `json:"total"`
	Imported int                   `json:"imported"`
	Rejected []rejectedRowResponse `json:"rejected"`
}

func toImportResponse(res app.ImportResult) importResponse {
	out := importResponse{Total: res.Total, Imported: res.Imported, Rejected: make([]rejectedRowResponse, 0, len(res.Rejected))}
	for _, r := range res.Rejected {
		out.Rejected = append(out.Rejected, rejectedRowResponse{Row: r.Row, Cedula: r.Cedula, Reason: r.Reason(), Message: r.Err.Error()})
	}
	return out
}

type errorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Missing []string `json:"missing,omitempty"`
}

type agencySummaryResponse struct {
	Agencies []member.AgencyStats `json:"agencies"`
}
