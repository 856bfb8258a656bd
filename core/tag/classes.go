package tag

func pad(n int) Field { return Field{Kind: KindPad, Size: n} }

func dep(name string, classes ...Class) Field {
	return Field{Name: name, Kind: KindDependency, Classes: classes}
}

func block(name string, s *Struct) Field {
	return Field{Name: name, Kind: KindBlock, Block: s}
}

// Scenario field names read by the build and load paths.
const (
	ScenarioType           = "type"
	ScenarioStructureBSPs  = "structure_bsps"
	ScenarioBSPStart       = "bsp_start"
	ScenarioBSPSize        = "bsp_size"
	ScenarioBSPAddress     = "bsp_address"
	ScenarioBSPReference   = "structure_bsp"
	BitmapPixelData        = "processed_pixel_data"
	BitmapData             = "bitmap_data"
	BitmapPixelOffset      = "pixel_data_offset"
	BitmapPixelSize        = "pixel_data_size"
	SoundSampleRate        = "sample_rate"
	SoundEncoding          = "encoding"
	SoundPitchRanges       = "pitch_ranges"
	SoundPermutations      = "permutations"
	SoundPermutationFormat = "format"
	SoundSamples           = "samples"
)

// ScenarioBSP is the element of the scenario's structure_bsps side table.
var ScenarioBSP = &Struct{
	Name: "scenario_structure_bsp_reference",
	Fields: []Field{
		{Name: ScenarioBSPStart, Kind: KindU32},
		{Name: ScenarioBSPSize, Kind: KindU32},
		{Name: ScenarioBSPAddress, Kind: KindU32},
		pad(4),
		dep(ScenarioBSPReference, ClassStructureBSP),
	},
	NoDedupe: true,
}

var scenarioDefinition = &Definition{
	Class:   ClassScenario,
	Version: 2,
	Root: &Struct{
		Name: "scenario",
		Fields: []Field{
			dep("dont_use"),
			dep("wont_use"),
			dep("cant_use"),
			block("skies", &Struct{Name: "scenario_sky", Fields: []Field{dep("sky")}}),
			{Name: ScenarioType, Kind: KindU16},
			{Name: "flags", Kind: KindU16},
			pad(4),
			block("predicted_resources", &Struct{
				Name: "predicted_resource",
				Fields: []Field{
					{Name: "type", Kind: KindU16},
					{Name: "resource_index", Kind: KindU16},
					{Name: "tag", Kind: KindDependency, IDOnly: true},
				},
			}),
			block(ScenarioStructureBSPs, ScenarioBSP),
		},
	},
}

var structureBSPDefinition = &Definition{
	Class:   ClassStructureBSP,
	Version: 5,
	Root: &Struct{
		Name: "scenario_structure_bsp",
		Fields: []Field{
			dep("lightmaps_bitmap", ClassBitmap),
			{Name: "vertex_buffer_count", Kind: KindU32},
			{Name: "collision_data", Kind: KindData},
			block("surfaces", &Struct{
				Name: "structure_bsp_surface",
				Fields: []Field{
					{Name: "vertex0", Kind: KindU16},
					{Name: "vertex1", Kind: KindU16},
					{Name: "vertex2", Kind: KindU16},
				},
			}),
		},
	},
}

var globalsDefinition = &Definition{
	Class:   ClassGlobals,
	Version: 3,
	Root: &Struct{
		Name: "globals",
		Fields: []Field{
			pad(4),
			block("sounds", &Struct{Name: "globals_sound", Fields: []Field{dep("sound", ClassSound)}}),
			block("interface_bitmaps", &Struct{
				Name: "globals_interface_bitmaps",
				Fields: []Field{
					dep("font_system", ClassFont),
					dep("hud_messages", ClassHUDMessageText),
				},
			}),
		},
	},
}

var tagCollectionDefinition = &Definition{
	Class:   ClassTagCollection,
	Version: 1,
	Root: &Struct{
		Name: "tag_collection",
		Fields: []Field{
			block("tags", &Struct{Name: "tag_collection_tag", Fields: []Field{dep("reference")}}),
		},
	},
}

var bitmapDefinition = &Definition{
	Class:   ClassBitmap,
	Version: 7,
	Root: &Struct{
		Name: "bitmap",
		Fields: []Field{
			{Name: "type", Kind: KindU16},
			{Name: "format", Kind: KindU16},
			{Name: "usage", Kind: KindU16},
			{Name: "flags", Kind: KindU16},
			{Name: "detail_fade_factor", Kind: KindF32},
			{Name: "sharpen_amount", Kind: KindF32},
			{Name: "bump_height", Kind: KindF32},
			{Name: "color_plate_width", Kind: KindU16},
			{Name: "color_plate_height", Kind: KindU16},
			{Name: "compressed_color_plate_data", Kind: KindData},
			{Name: BitmapPixelData, Kind: KindData, Asset: true},
			block(BitmapData, &Struct{
				Name: "bitmap_data",
				Fields: []Field{
					{Name: "width", Kind: KindU16},
					{Name: "height", Kind: KindU16},
					{Name: "depth", Kind: KindU16},
					{Name: "type", Kind: KindU16},
					{Name: "format", Kind: KindU16},
					{Name: "flags", Kind: KindU16},
					{Name: BitmapPixelOffset, Kind: KindU32},
					{Name: BitmapPixelSize, Kind: KindU32},
				},
			}),
		},
	},
}

var soundDefinition = &Definition{
	Class:   ClassSound,
	Version: 4,
	Root: &Struct{
		Name: "sound",
		Fields: []Field{
			{Name: "flags", Kind: KindU32},
			{Name: "class", Kind: KindU16},
			{Name: SoundSampleRate, Kind: KindU16},
			{Name: SoundEncoding, Kind: KindU16},
			pad(2),
			{Name: "random_pitch_bounds", Kind: KindF32},
			block(SoundPitchRanges, &Struct{
				Name: "sound_pitch_range",
				Fields: []Field{
					{Name: "name", Kind: KindString32},
					{Name: "natural_pitch", Kind: KindF32},
					block(SoundPermutations, &Struct{
						Name: "sound_permutation",
						Fields: []Field{
							{Name: "name", Kind: KindString32},
							{Name: SoundPermutationFormat, Kind: KindU16},
							pad(2),
							{Name: SoundSamples, Kind: KindData, Asset: true},
						},
					}),
				},
			}),
		},
	},
}

var unicodeStringListDefinition = &Definition{
	Class:   ClassUnicodeStringList,
	Version: 1,
	Root: &Struct{
		Name: "unicode_string_list",
		Fields: []Field{
			block("strings", &Struct{
				Name:   "unicode_string_list_string",
				Fields: []Field{{Name: "string", Kind: KindData}},
			}),
		},
	},
}

var fontDefinition = &Definition{
	Class:   ClassFont,
	Version: 1,
	Root: &Struct{
		Name: "font",
		Fields: []Field{
			{Name: "flags", Kind: KindU32},
			{Name: "ascending_height", Kind: KindI16},
			{Name: "descending_height", Kind: KindI16},
			block("characters", &Struct{
				Name: "font_character",
				Fields: []Field{
					{Name: "character", Kind: KindU16},
					{Name: "character_width", Kind: KindI16},
					{Name: "bitmap_width", Kind: KindI16},
					{Name: "bitmap_height", Kind: KindI16},
					{Name: "bitmap_origin_x", Kind: KindI16},
					{Name: "bitmap_origin_y", Kind: KindI16},
					{Name: "hardware_character_index", Kind: KindU16},
					pad(2),
					{Name: "pixels_offset", Kind: KindI32},
				},
			}),
			{Name: "pixels", Kind: KindData},
		},
	},
}

var hudMessageTextDefinition = &Definition{
	Class:   ClassHUDMessageText,
	Version: 1,
	Root: &Struct{
		Name: "hud_message_text",
		Fields: []Field{
			{Name: "text_data", Kind: KindData},
			block("message_elements", &Struct{
				Name: "hud_message_text_element",
				Fields: []Field{
					{Name: "type", Kind: KindU8},
					{Name: "data", Kind: KindU8},
				},
			}),
			block("messages", &Struct{
				Name: "hud_message_text_message",
				Fields: []Field{
					{Name: "name", Kind: KindString32},
					{Name: "start_index_into_text_blob", Kind: KindU16},
					{Name: "start_index_of_message_block", Kind: KindU16},
					{Name: "panel_count", Kind: KindU8},
					pad(3),
				},
			}),
		},
	},
}
