package transform

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// equatorialToGalactic is the ICRS -> Galactic rotation matrix
// (Hipparcos catalogue, vol. 1, eq. 1.5.11).
var equatorialToGalactic = mat.NewDense(3, 3, []float64{
	-0.0548755604162154, -0.8734370902348850, -0.4838350155487132,
	+0.4941094278755837, -0.4448296299600112, +0.7469822444972189,
	-0.8676661490190047, -0.1980763734312015, +0.4559837761750669,
})

// obliquityJ2000 is the mean obliquity of the ecliptic at J2000.0 in degrees.
const obliquityJ2000 = 23.4392911

var equatorialToEcliptic = rotationX(obliquityJ2000 * deg2rad)

// rotationX returns the frame rotation about the x axis by angle (radians).
func rotationX(angle float64) *mat.Dense {
	s, c := math.Sincos(angle)
	return mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, c, s,
		0, -s, c,
	})
}

// unitVectors packs RA/Dec pairs (degrees) as the columns of a 3xN matrix.
func unitVectors(ra, dec []float64) *mat.Dense {
	n := len(ra)
	data := make([]float64, 3*n)
	for i := 0; i < n; i++ {
		sinRA, cosRA := math.Sincos(ra[i] * deg2rad)
		sinDec, cosDec := math.Sincos(dec[i] * deg2rad)
		data[i] = cosDec * cosRA
		data[n+i] = cosDec * sinRA
		data[2*n+i] = sinDec
	}
	return mat.NewDense(3, n, data)
}

// sphericalColumns converts the columns of a 3xN matrix of unit vectors back
// to longitude in [0, 360) and latitude in [-90, 90], both degrees.
func sphericalColumns(m *mat.Dense) (lon, lat []float64) {
	_, n := m.Dims()
	lon = make([]float64, n)
	lat = make([]float64, n)
	for i := 0; i < n; i++ {
		x, y, z := m.At(0, i), m.At(1, i), m.At(2, i)
		lon[i] = WrapDeg(math.Atan2(y, x) * rad2deg)
		lat[i] = math.Asin(clamp(z, -1, 1)) * rad2deg
	}
	return lon, lat
}

func rotateBatch(rot mat.Matrix, lon, lat []float64) ([]float64, []float64) {
	if len(lon) == 0 {
		return nil, nil
	}
	var out mat.Dense
	out.Mul(rot, unitVectors(lon, lat))
	return sphericalColumns(&out)
}

// EquatorialToGalactic converts RA/Dec (degrees, J2000) to galactic l/b in degrees.
func EquatorialToGalactic(raDeg, decDeg float64) (l, b float64) {
	ls, bs := rotateBatch(equatorialToGalactic, []float64{raDeg}, []float64{decDeg})
	return ls[0], bs[0]
}

// EquatorialToGalacticBatch converts many positions with a single matrix product.
func EquatorialToGalacticBatch(ra, dec []float64) (l, b []float64) {
	return rotateBatch(equatorialToGalactic, ra, dec)
}

// EquatorialToEcliptic converts RA/Dec (degrees) to ecliptic longitude and
// latitude (degrees) referred to the mean J2000 ecliptic.
func EquatorialToEcliptic(raDeg, decDeg float64) (lon, lat float64) {
	ls, bs := rotateBatch(equatorialToEcliptic, []float64{raDeg}, []float64{decDeg})
	return ls[0], bs[0]
}

// EquatorialToEclipticBatch is the batched form of EquatorialToEcliptic.
func EquatorialToEclipticBatch(ra, dec []float64) (lon, lat []float64) {
	return rotateBatch(equatorialToEcliptic, ra, dec)
}

// EclipticToEquatorial converts ecliptic coordinates with the given obliquity
// (degrees) to RA/Dec in degrees.
func EclipticToEquatorial(lonDeg, latDeg, obliquityDeg float64) (ra, dec float64) {
	rs, ds := rotateBatch(rotationX(obliquityDeg*deg2rad).T(), []float64{lonDeg}, []float64{latDeg})
	return rs[0], ds[0]
}
