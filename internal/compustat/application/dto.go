package application

import (
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/datacollector/internal/compustat/domain"
	"github.com/wyfcoding/datacollector/internal/index"
)

type IndexDTO struct {
	Gvkeyx    string `json:"gvkeyx"`
	Name      string `json:"name"`
	Indexcat  string `json:"indexcat"`
	Indexid   string `json:"indexid"`
	Indextype string `json:"indextype"`
	Indexgeo  string `json:"indexgeo"`
	Idxstat   string `json:"idxstat"`
	Tic       string `json:"tic"`
}

type DailyPriceDTO struct {
	Date  string  `json:"date"`
	Close *string `json:"close"`
	High  *string `json:"high"`
	Low   *string `json:"low"`
}

type ConstituentDTO struct {
	Symbol string  `json:"symbol"`
	Gvkey  string  `json:"gvkey"`
	Iid    string  `json:"iid"`
	Gvkeyx string  `json:"gvkeyx"`
	From   string  `json:"from"`
	Thru   *string `json:"thru"`
}

func ToIndexDTO(r *domain.IndexRecord) IndexDTO {
	return IndexDTO{
		Gvkeyx:    r.Gvkeyx,
		Name:      r.Conm,
		Indexcat:  r.Indexcat,
		Indexid:   r.Indexid,
		Indextype: r.Indextype,
		Indexgeo:  r.Indexgeo,
		Idxstat:   r.Idxstat,
		Tic:       r.Tic,
	}
}

func ToDailyPriceDTOs(rows []domain.DailyObservation) []DailyPriceDTO {
	out := make([]DailyPriceDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, DailyPriceDTO{
			Date:  r.Datadate.Format(index.DateLayout),
			Close: nullString(r.Prccd),
			High:  nullString(r.Prchd),
			Low:   nullString(r.Prcld),
		})
	}
	return out
}

func ToConstituentDTOs(rows []index.Constituent) []ConstituentDTO {
	out := make([]ConstituentDTO, 0, len(rows))
	for _, r := range rows {
		dto := ConstituentDTO{
			Symbol: r.Symbol(),
			Gvkey:  r.Gvkey,
			Iid:    r.Iid,
			Gvkeyx: r.Gvkeyx,
			From:   r.From.Format(index.DateLayout),
		}
		if r.Thru != nil {
			thru := r.Thru.Format(index.DateLayout)
			dto.Thru = &thru
		}
		out = append(out, dto)
	}
	return out
}

func nullString(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.String()
	return &s
}
