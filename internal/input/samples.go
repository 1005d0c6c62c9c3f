package input

import (
	"math"

	"github.com/lukaszgryglicki/tissuemc/internal/detector"
	"github.com/lukaszgryglicki/tissuemc/internal/geom"
	"github.com/lukaszgryglicki/tissuemc/internal/pmc"
	"github.com/lukaszgryglicki/tissuemc/internal/tissue"
)

var (
	skin   = tissue.OpticalProperties{Mua: 0.01, Mus: 10, G: 0.8, N: 1.4}
	dermis = tissue.OpticalProperties{Mua: 0.02, Mus: 12, G: 0.9, N: 1.4}
	subcut = tissue.OpticalProperties{Mua: 0.005, Mus: 8, G: 0.8, N: 1.4}
	tumor  = tissue.OpticalProperties{Mua: 0.05, Mus: 10, G: 0.8, N: 1.4}
)

func rangePtr(start, stop Real, count int) *detector.Range {
	r := detector.NewRange(start, stop, count)
	return &r
}

func rhoBins() *detector.Range { return rangePtr(0, 10, 101) }
func zBins() *detector.Range { return rangePtr(0, 10, 101) }

func oneLayer(name string, dets ...detector.Config) *SimulationInput {
	in := &SimulationInput{
		OutputName: name,
		N:          DefaultN,
		Tissue: TissueCfg{
			Layers: []LayerCfg{{Thickness: 100, OpticalProperties: skin}},
		},
		Detectors: dets,
	}
	in.applyDefaults()
	return in
}

func layered(name string, thickness []Real, props []tissue.OpticalProperties, dets ...detector.Config) *SimulationInput {
	in := oneLayer(name, dets...)
	in.Tissue.Layers = in.Tissue.Layers[:0]
	for i, d := range thickness {
		in.Tissue.Layers = append(in.Tissue.Layers, LayerCfg{Thickness: d, OpticalProperties: props[i]})
	}
	return in
}

func rOfRho() detector.Config {
	return detector.Config{TallyType: detector.ROfRhoType, Rho: rhoBins()}
}

func fluenceOfRhoAndZ() detector.Config {
	return detector.Config{TallyType: detector.FluenceOfRhoAndZType, Rho: rhoBins(), Z: zBins()}
}

// Samples returns the example infiles written by geninfiles. Each is named
// by its OutputName.
func Samples() []*SimulationInput {
	var out []*SimulationInput

	ellip := oneLayer("ellip_FluenceOfRhoAndZ", fluenceOfRhoAndZ())
	ellip.Tissue.Type = SingleEllipsoidTissue
	ellip.Tissue.Ellipsoid = &EllipsoidCfg{
		Center:            geom.Point3{X: 0, Y: 0, Z: 5},
		Radii:             geom.Vector3{X: 1, Y: 1, Z: 1},
		OpticalProperties: tumor,
	}
	out = append(out, ellip)

	embedded := oneLayer("embeddedDirectionalCircularSourceEllipTissue", fluenceOfRhoAndZ())
	embedded.Tissue.Type = SingleEllipsoidTissue
	embedded.Tissue.Ellipsoid = &EllipsoidCfg{
		Center:            geom.Point3{X: 0, Y: 0, Z: 4},
		Radii:             geom.Vector3{X: 2, Y: 2, Z: 2},
		OpticalProperties: tumor,
	}
	embedded.Source = SourceCfg{
		Type:        CircularSource,
		Position:    geom.Point3{X: 0, Y: 0, Z: 4},
		Direction:   geom.Vector3{X: 0, Y: 0, Z: 1},
		OuterRadius: 1,
		BeamProfile: "Flat",
		Angular:     "Collimated",
	}
	out = append(out, embedded)

	flat := oneLayer("Flat_source_one_layer_ROfRho", rOfRho())
	flat.Source = SourceCfg{Type: CircularSource, Direction: geom.Vector3{Z: 1}, OuterRadius: 1, BeamProfile: "Flat", Angular: "Collimated"}
	out = append(out, flat)

	gauss := oneLayer("Gaussian_source_one_layer_ROfRho", rOfRho())
	gauss.Source = SourceCfg{Type: CircularSource, Direction: geom.Vector3{Z: 1}, OuterRadius: 3, FWHM: 1, BeamProfile: "Gaussian", Angular: "Collimated"}
	out = append(out, gauss)

	all := oneLayer("one_layer_all_detectors")
	all.Tissue.Layers[0].Thickness = 20
	for _, tt := range detector.TallyTypes {
		all.Detectors = append(all.Detectors, detector.Config{
			TallyType:        tt,
			Rho:              rhoBins(),
			Angle:            rangePtr(0, math.Pi/2, 5),
			Time:             rangePtr(0, 1, 101),
			X:                rangePtr(-10, 10, 101),
			Y:                rangePtr(-10, 10, 101),
			Z:                zBins(),
			MomentumTransfer: rangePtr(0, 500, 51),
		})
	}
	for i := range all.Detectors {
		if all.Detectors[i].TallyType == detector.RadianceOfRhoAndZAndAngleType {
			all.Detectors[i].Angle = rangePtr(0, math.Pi, 5)
		}
	}
	out = append(out, all)

	out = append(out, oneLayer("one_layer_FluenceOfRhoAndZ_RadianceOfRhoAndZAndAngle",
		fluenceOfRhoAndZ(),
		detector.Config{TallyType: detector.RadianceOfRhoAndZAndAngleType, Rho: rhoBins(), Z: zBins(), Angle: rangePtr(0, math.Pi, 5)}))

	out = append(out, oneLayer("one_layer_ROfRho_FluenceOfRhoAndZ", rOfRho(), fluenceOfRhoAndZ()))

	perturbed := oneLayer("pMC_one_layer_ROfRho_DAW", rOfRho(), detector.Config{TallyType: detector.RDiffuseType})
	perturbed.Options.Databases = []string{PMCDiffuseReflectanceDatabase}
	mua := 0.02
	perturbed.PostProcessor = &PostProcessorCfg{
		Perturbations: []Perturbation{{Region: 1, Mua: &mua}},
		Detectors:     []detector.Config{{TallyType: pmc.Prefix + detector.ROfRhoType, Rho: rhoBins()}},
	}
	out = append(out, perturbed)

	three := layered("three_layer_ReflectedTimeOfRhoAndSubregionHist",
		[]Real{0.1, 1, 20}, []tissue.OpticalProperties{skin, dermis, subcut},
		detector.Config{TallyType: detector.ReflectedTimeOfRhoAndSubregionHistType, Rho: rhoBins(), Time: rangePtr(0, 1, 101)})
	out = append(out, three)

	two := []Real{1, 20}
	twoProps := []tissue.OpticalProperties{skin, dermis}
	out = append(out, layered("two_layer_momentum_transfer_detectors", two, twoProps,
		detector.Config{TallyType: detector.ReflectedMTOfRhoAndSubregionHistType, Rho: rhoBins(), MomentumTransfer: rangePtr(0, 500, 51)}))
	out = append(out, layered("two_layer_ROfRho", two, twoProps, rOfRho()))

	withDB := layered("two_layer_ROfRho_with_db", two, twoProps, rOfRho())
	withDB.Options.Databases = []string{DiffuseReflectanceDatabase}
	out = append(out, withDB)

	voxel := layered("voxel_ROfXAndY_FluenceOfXAndYAndZ", two, twoProps,
		detector.Config{TallyType: detector.ROfXAndYType, X: rangePtr(-10, 10, 101), Y: rangePtr(-10, 10, 101)},
		detector.Config{TallyType: detector.FluenceOfXAndYAndZType, X: rangePtr(-10, 10, 21), Y: rangePtr(-10, 10, 21), Z: rangePtr(0, 21, 22)})
	voxel.Tissue.Type = VoxelTissue
	voxel.Tissue.Voxel = &VoxelCfg{MinX: -10, MaxX: 10, MinY: -10, MaxY: 10, Nx: 20, Ny: 20, Nz: 21}
	out = append(out, voxel)

	return out
}
