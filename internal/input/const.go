package input

// Infile defaults, applied to zero fields by Load.
const (
	DefaultN                   = 100
	DefaultSeed                = 0
	DefaultOutputName          = "results"
	DefaultAbsorptionWeighting = "Discrete"
	DefaultRouletteThreshold   = 1e-4
	DefaultRouletteChance      = 10
	DefaultTissueType          = MultiLayerTissue
	DefaultSourceType          = DirectionalPointSource
	DefaultBeamProfile         = "Flat"
	DefaultAngular             = "Collimated"
	DefaultImageGamma          = 0.5
)

// Tissue and source type names.
const (
	MultiLayerTissue      = "MultiLayer"
	SingleEllipsoidTissue = "SingleEllipsoid"
	VoxelTissue           = "Voxel"

	DirectionalPointSource = "DirectionalPoint"
	IsotropicPointSource   = "IsotropicPoint"
	CircularSource         = "DirectionalCircular"
)
