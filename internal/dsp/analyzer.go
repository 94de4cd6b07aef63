// ABOUTME: Spectral analyzer converting audio frames into band energies
// ABOUTME: FFT, triple noise gating, and a 64-bin visualization spectrum
package dsp

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

const (
	// SpectrumBins is the fixed size of the visualization spectrum.
	SpectrumBins = 64

	// Band partition in Hz
	bassLow    = 20.0
	bassHigh   = 250.0
	midsHigh   = 4000.0
	trebleHigh = 20000.0

	// Gating thresholds. Three independent checks: a single threshold
	// either lets hiss through or clips quiet signal, so time-domain RMS,
	// excess-over-noise-floor, and absolute band energy are all applied.
	silenceRMS       = 0.005
	noiseFloorRatio  = 3.0
	minGatedEnergy   = 1e-4
	minBandEnergy    = 1e-6
	displayThreshold = 0.04
)

// BandEnergies holds normalized per-band spectral fractions. Either all
// three sum to 1.0 (signal present) or all are exactly 0.0 (gated).
type BandEnergies struct {
	Bass   float64
	Mids   float64
	Treble float64
}

// Zero reports whether the energies were gated as silence.
func (b BandEnergies) Zero() bool {
	return b.Bass == 0 && b.Mids == 0 && b.Treble == 0
}

// Result is the per-frame analyzer output.
type Result struct {
	Bands    BandEnergies
	Spectrum [SpectrumBins]float64 // normalized to its own max, [0,1]
	RMS      float64
}

// Analyzer transforms fixed-size mono frames into band energies and a
// coarse spectrum. Scratch buffers are allocated once so steady-state
// processing is allocation-free.
type Analyzer struct {
	sampleRate float64
	frameSize  int
	fft        *fourier.FFT
	window     []float64
	windowed   []float64
	coeffs     []complex128
	mags       []float64
	scratch    []float64 // percentile sort buffer
	binWidth   float64
}

// NewAnalyzer creates an analyzer for the given sample rate and frame size.
// Both are fixed for the analyzer's lifetime.
func NewAnalyzer(sampleRate float64, frameSize int) *Analyzer {
	// window.Hann scales a sequence in place, so a ones vector yields
	// the raw coefficients.
	ones := make([]float64, frameSize)
	for i := range ones {
		ones[i] = 1
	}

	return &Analyzer{
		sampleRate: sampleRate,
		frameSize:  frameSize,
		fft:        fourier.NewFFT(frameSize),
		window:     window.Hann(ones),
		windowed:   make([]float64, frameSize),
		coeffs:     make([]complex128, frameSize/2+1),
		mags:       make([]float64, frameSize/2+1),
		scratch:    make([]float64, frameSize/2+1),
		binWidth:   sampleRate / float64(frameSize),
	}
}

// Analyze processes one frame. The frame must be frameSize samples long.
// Purely functional per frame: no state is retained between calls.
func (a *Analyzer) Analyze(frame []float32) Result {
	var res Result

	// Time-domain gate: quiet frames exit before any FFT work.
	res.RMS = rms(frame)
	if res.RMS < silenceRMS {
		return res
	}

	for i, s := range frame {
		a.windowed[i] = float64(s) * a.window[i]
	}
	a.fft.Coefficients(a.coeffs, a.windowed)
	for i, c := range a.coeffs {
		a.mags[i] = math.Hypot(real(c), imag(c))
	}

	// Frequency-domain gate: estimate the noise floor as the 60th
	// percentile of magnitudes, keep only bins well above it.
	floor := percentile(a.mags, a.scratch, 0.6)
	total := 0.0
	for i, m := range a.mags {
		if m > floor*noiseFloorRatio {
			a.mags[i] = m - floor
			total += a.mags[i]
		} else {
			a.mags[i] = 0
		}
	}
	if total < minGatedEnergy {
		return Result{RMS: res.RMS}
	}

	// Partition the surviving bins into bass/mids/treble.
	var bass, mids, treble float64
	for i, m := range a.mags {
		if m == 0 {
			continue
		}
		freq := float64(i) * a.binWidth
		switch {
		case freq < bassLow:
		case freq < bassHigh:
			bass += m
		case freq < midsHigh:
			mids += m
		case freq < trebleHigh:
			treble += m
		}
	}

	sum := bass + mids + treble
	if sum < minBandEnergy {
		return Result{RMS: res.RMS}
	}

	res.Bands = BandEnergies{
		Bass:   bass / sum,
		Mids:   mids / sum,
		Treble: treble / sum,
	}
	res.Spectrum = a.buildSpectrum()

	return res
}

// buildSpectrum buckets the gated magnitudes into SpectrumBins log-spaced
// bins between 20Hz and 20kHz, normalized to the loudest bin.
func (a *Analyzer) buildSpectrum() [SpectrumBins]float64 {
	var spec [SpectrumBins]float64

	logLow := math.Log10(bassLow)
	logHigh := math.Log10(trebleHigh)
	step := (logHigh - logLow) / float64(SpectrumBins)

	maxVal := 0.0
	for b := 0; b < SpectrumBins; b++ {
		fLow := math.Pow(10, logLow+float64(b)*step)
		fHigh := math.Pow(10, logLow+float64(b+1)*step)

		iLow := int(fLow / a.binWidth)
		iHigh := int(fHigh / a.binWidth)
		if iHigh <= iLow {
			iHigh = iLow + 1
		}

		sum := 0.0
		for i := iLow; i < iHigh && i < len(a.mags); i++ {
			sum += a.mags[i]
		}
		spec[b] = sum
		if sum > maxVal {
			maxVal = sum
		}
	}

	if maxVal == 0 {
		return spec
	}
	for b := range spec {
		spec[b] /= maxVal
		if spec[b] < displayThreshold {
			spec[b] = 0
		}
	}

	return spec
}

// Mix blends band energies per the spectral focus: -1 weights pure bass,
// 0 pure mids, +1 pure treble, with linear interpolation between.
func Mix(b BandEnergies, focus float64) float64 {
	if focus < -1 {
		focus = -1
	} else if focus > 1 {
		focus = 1
	}

	switch {
	case focus < 0:
		return b.Bass*(-focus) + b.Mids*(1+focus)
	case focus > 0:
		return b.Treble*focus + b.Mids*(1-focus)
	default:
		return b.Mids
	}
}

// rms computes the root mean square of a frame.
func rms(frame []float32) float64 {
	if len(frame) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range frame {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(frame)))
}

// percentile computes the p-quantile of values using scratch as sort space.
func percentile(values, scratch []float64, p float64) float64 {
	scratch = scratch[:len(values)]
	copy(scratch, values)
	sort.Float64s(scratch)

	idx := int(p * float64(len(scratch)))
	if idx >= len(scratch) {
		idx = len(scratch) - 1
	}
	return scratch[idx]
}
