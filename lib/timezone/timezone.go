package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// hosts without tzdata, IST has no daylight saving
		Location = time.FixedZone("IST", 5*60*60+30*60)
	}
}

// the portal renders every date in IST, force that regardless of where the
// server is hosted so that dates parsed from pages line up with Now()
func Now() time.Time {
	return time.Now().In(Location)
}
