package event

// Families is the table of event families known to the default registry.
// Add new firmware event families here; no code change is needed elsewhere.
var Families = []Family{
	{Pattern: "onvif:AudioSource/axis:TriggerLevel", Type: "Sound", IDSource: "channel"},
	{Pattern: "onvif:VideoSource/axis:DayNightVision", Type: "DayNight", IDSource: "VideoSourceConfigurationToken"},
	{Pattern: "onvif:VideoSource/axis:Tampering", Type: "Tampering", IDSource: "channel"},
	{Pattern: "onvif:VideoAnalytics/axis:MotionDetection", Type: "VMD2", IDSource: "window"},
	{Pattern: "onvif:Device/axis:Light/Status", Type: "Light", IDSource: "id", Rule: OnOffToken},
	{Pattern: "onvif:Device/axis:Sensor/PIR", Type: "PIR", IDSource: "sensor"},
	{Pattern: "onvif:Device/axis:IO/Port", Type: "Input", IDSource: "port"},
	{Pattern: "onvif:Device/axis:IO/SupervisedPort", Type: "Supervised Input", IDSource: "port"},
	{Pattern: "onvif:Device/axis:IO/VirtualInput", Type: "Virtual Input", IDSource: "port"},
	{Pattern: "onvif:Device/Trigger/Relay", Type: "Relay", IDSource: "RelayToken", Rule: ActiveInactiveToken},
	{Pattern: "onvif:RuleEngine/MotionRegionDetector/Motion", Type: "Motion Region", IDSource: "VideoSource"},
	{Pattern: "axis:Storage/Alert", Type: "Storage Alert", IDSource: "disk_id", ValueKey: "overall_health"},

	{Pattern: "onvif:PTZController/axis:Move/*", Type: "is_moving", IDSource: "PTZConfigurationToken"},
	{Pattern: "onvif:PTZController/axis:PTZPresets/*", Type: "on_preset", IDSource: "PresetToken", Rule: PresetIsOne},
	{Pattern: "onvif:RuleEngine/axis:VMD3/*", Type: "VMD3", IDSource: "areaid"},
	{Pattern: "axis:CameraApplicationPlatform/VMD/*", Type: "VMD4", IDSource: TopicTail},
	{Pattern: "axis:CameraApplicationPlatform/FenceGuard/*", Type: "Fence Guard", IDSource: TopicTail},
	{Pattern: "axis:CameraApplicationPlatform/LoiteringGuard/*", Type: "Loitering Guard", IDSource: TopicTail},
	{Pattern: "axis:CameraApplicationPlatform/MotionGuard/*", Type: "Motion Guard", IDSource: TopicTail},
	{Pattern: "axis:CameraApplicationPlatform/ObjectAnalytics/*", Type: "Object Analytics", IDSource: TopicTail},
}

// DefaultRegistry is built once at start-up from Families.
var DefaultRegistry = MustRegistry(Families)
