package aprs

import (
	"fmt"
	"math"
	"strings"
)

// Fixed digipeater path for internet-only stations.
const path = ">WIDE1-1,TCPIP*:"

// Telemetry channel definitions, re-announced on every sequence wrap.
const (
	tlmPARM = "PARM.Vcc,RSSI,Heap,Acc,Spd,PROBE,FIX,FST,SLW,VCC,HT,RB,TM"
	tlmEQNS = "EQNS.0,0.004,2.5,0,-1,0,0,256,0,0,1,0,0.0008,0,0"
	tlmUNIT = "UNIT.V,dBm,Bytes,m,m/s,prb,on,fst,slw,bad,ht,rb,er"
	tlmBITS = "BITS.11111111, "
)

const metersToFeet = 3.28084

// packetTime renders a unix timestamp as the zulu HHMMSSh field.
func packetTime(utm int64) string {
	hh := (utm % 86400) / 3600
	mm := (utm % 3600) / 60
	ss := utm % 60
	return fmt.Sprintf("%02d%02d%02dh", hh, mm, ss)
}

// coordinates renders a position in APRS degrees-minutes form with the
// symbol table and code interleaved, e.g. "4427.67N/02608.03E>".
func coordinates(lat, lng float64, table, symbol byte) string {
	latDD := int(math.Abs(lat))
	latMM := int((math.Abs(lat) - float64(latDD)) * 6000)
	lngDD := int(math.Abs(lng))
	lngMM := int((math.Abs(lng) - float64(lngDD)) * 6000)
	ns := byte('N')
	if lat < 0 {
		ns = 'S'
	}
	ew := byte('E')
	if lng < 0 {
		ew = 'W'
	}
	return fmt.Sprintf("%02d%02d.%02d%c%c%03d%02d.%02d%c%c",
		latDD, latMM/100, latMM%100, ns, table,
		lngDD, lngMM/100, lngMM%100, ew, symbol)
}

// pad9 space-pads (or truncates) a callsign to the 9-character field
// used by message and telemetry-definition addressees.
func pad9(s string) string {
	if len(s) > 9 {
		return s[:9]
	}
	return s + strings.Repeat(" ", 9-len(s))
}

// positionBody renders the shared tail of position and object reports:
// coordinates, optional course/speed, optional altitude, comment.
func (c *Client) positionBody(b *strings.Builder, lat, lng float64, cse, spd int, alt float64, comment string) {
	b.WriteString(coordinates(lat, lng, c.symTable, c.symCode))
	if spd > 0 {
		fmt.Fprintf(b, "%03d/%03d", cse, spd)
	}
	if alt >= 0 {
		fmt.Fprintf(b, "/A=%06d", int64(alt*metersToFeet))
	}
	if comment != "" {
		b.WriteString(comment)
	} else {
		b.WriteString(c.name)
		b.WriteByte('/')
		b.WriteString(c.version)
	}
}
